package services

// FieldGroup is the UI grouping a validation error is displayed under.
type FieldGroup string

const (
	FieldGroupDetails       FieldGroup = "Apprenticeship details"
	FieldGroupQualification FieldGroup = "Qualification"
	FieldGroupDelivery      FieldGroup = "Delivery"
	FieldGroupVenue         FieldGroup = "Venue"
	FieldGroupRegions       FieldGroup = "Regions"
)

// Row-level error codes. These are stable identifiers: they are persisted on
// rows, asserted on by tests and mapped to messages for the UI, so existing
// codes must never be renamed.
const (
	ErrCodeInformationRequired     = "APPRENTICESHIP_INFORMATION_REQUIRED"
	ErrCodeInformationMaxLength    = "APPRENTICESHIP_INFORMATION_MAXLENGTH"
	ErrCodeInformationInvalidChars = "APPRENTICESHIP_INFORMATION_INVALID_CHARS"

	ErrCodeWebpageMaxLength = "APPRENTICESHIP_WEBPAGE_MAXLENGTH"
	ErrCodeWebpageFormat    = "APPRENTICESHIP_WEBPAGE_FORMAT"

	ErrCodeContactEmailRequired  = "CONTACT_EMAIL_REQUIRED"
	ErrCodeContactEmailMaxLength = "CONTACT_EMAIL_MAXLENGTH"
	ErrCodeContactEmailFormat    = "CONTACT_EMAIL_FORMAT"

	ErrCodeContactPhoneRequired  = "CONTACT_PHONE_REQUIRED"
	ErrCodeContactPhoneMaxLength = "CONTACT_PHONE_MAXLENGTH"
	ErrCodeContactPhoneFormat    = "CONTACT_PHONE_FORMAT"

	ErrCodeContactURLMaxLength = "CONTACT_URL_MAXLENGTH"
	ErrCodeContactURLFormat    = "CONTACT_URL_FORMAT"

	ErrCodeCostFormat       = "COST_FORMAT"
	ErrCodeDurationRequired = "DURATION_REQUIRED"
	ErrCodeDurationFormat   = "DURATION_FORMAT"
	ErrCodeDurationRange    = "DURATION_RANGE"

	ErrCodeDeliveryMethodRequired = "DELIVERY_METHOD_REQUIRED"
	ErrCodeDeliveryMethodInvalid  = "DELIVERY_METHOD_INVALID"

	ErrCodeDeliveryModeRequired  = "DELIVERY_MODE_REQUIRED"
	ErrCodeDeliveryModeInvalid   = "DELIVERY_MODE_INVALID"
	ErrCodeDeliveryModeDuplicate = "DELIVERY_MODE_DUPLICATE"

	ErrCodeVenueRequired  = "VENUE_REQUIRED"
	ErrCodeVenueInvalid   = "VENUE_INVALID"
	ErrCodeVenueAmbiguous = "VENUE_AMBIGUOUS"

	ErrCodeRadiusRequired = "RADIUS_REQUIRED"
	ErrCodeRadiusFormat   = "RADIUS_FORMAT"
	ErrCodeRadiusRange    = "RADIUS_RANGE"

	ErrCodeAcrossEnglandRequired    = "ACROSS_ENGLAND_REQUIRED"
	ErrCodeNationalDeliveryRequired = "NATIONAL_DELIVERY_REQUIRED"

	ErrCodeRegionsRequired  = "REGIONS_REQUIRED"
	ErrCodeRegionInvalid    = "REGION_INVALID"
	ErrCodeSubRegionInvalid = "SUB_REGION_INVALID"

	ErrCodeQualificationRequired    = "QUALIFICATION_REQUIRED"
	ErrCodeStandardAndFramework     = "STANDARD_AND_FRAMEWORK_BOTH_PRESENT"
	ErrCodeStandardCodeFormat       = "STANDARD_CODE_FORMAT"
	ErrCodeStandardIncomplete       = "STANDARD_IDENTITY_INCOMPLETE"
	ErrCodeStandardNotFound         = "STANDARD_NOT_FOUND"
	ErrCodeStandardExpired          = "STANDARD_EXPIRED"
	ErrCodeFrameworkCodeFormat      = "FRAMEWORK_CODE_FORMAT"
	ErrCodeFrameworkIncomplete      = "FRAMEWORK_IDENTITY_INCOMPLETE"
	ErrCodeFrameworkNotFound        = "FRAMEWORK_NOT_FOUND"
	ErrCodeFrameworkExpired         = "FRAMEWORK_EXPIRED"
)

// ErrorDetail describes one error code for the UI layer.
type ErrorDetail struct {
	Message    string
	FieldGroup FieldGroup
}

// errorRegistry is static, process-wide and read-only. Never mutated at
// runtime.
var errorRegistry = map[string]ErrorDetail{
	ErrCodeInformationRequired:     {"APPRENTICESHIP_INFORMATION is required", FieldGroupDetails},
	ErrCodeInformationMaxLength:    {"APPRENTICESHIP_INFORMATION must be 750 characters or fewer", FieldGroupDetails},
	ErrCodeInformationInvalidChars: {"APPRENTICESHIP_INFORMATION contains invalid characters", FieldGroupDetails},

	ErrCodeWebpageMaxLength: {"APPRENTICESHIP_WEBPAGE must be 255 characters or fewer", FieldGroupDetails},
	ErrCodeWebpageFormat:    {"APPRENTICESHIP_WEBPAGE must be a valid website address", FieldGroupDetails},

	ErrCodeContactEmailRequired:  {"CONTACT_EMAIL is required", FieldGroupDetails},
	ErrCodeContactEmailMaxLength: {"CONTACT_EMAIL must be 255 characters or fewer", FieldGroupDetails},
	ErrCodeContactEmailFormat:    {"CONTACT_EMAIL must be a valid email address", FieldGroupDetails},

	ErrCodeContactPhoneRequired:  {"CONTACT_PHONE is required", FieldGroupDetails},
	ErrCodeContactPhoneMaxLength: {"CONTACT_PHONE must be 30 characters or fewer", FieldGroupDetails},
	ErrCodeContactPhoneFormat:    {"CONTACT_PHONE must be a telephone number", FieldGroupDetails},

	ErrCodeContactURLMaxLength: {"CONTACT_URL must be 255 characters or fewer", FieldGroupDetails},
	ErrCodeContactURLFormat:    {"CONTACT_URL must be a valid website address", FieldGroupDetails},

	ErrCodeCostFormat:       {"COST must be a number with at most two decimal places", FieldGroupDetails},
	ErrCodeDurationRequired: {"DURATION is required", FieldGroupDetails},
	ErrCodeDurationFormat:   {"DURATION must be a whole number of months", FieldGroupDetails},
	ErrCodeDurationRange:    {"DURATION must be between 1 and 120 months", FieldGroupDetails},

	ErrCodeDeliveryMethodRequired: {"DELIVERY_METHOD is required", FieldGroupDelivery},
	ErrCodeDeliveryMethodInvalid:  {"DELIVERY_METHOD must be classroom, employer or both", FieldGroupDelivery},

	ErrCodeDeliveryModeRequired:  {"DELIVERY_MODE is required for classroom based delivery", FieldGroupDelivery},
	ErrCodeDeliveryModeInvalid:   {"DELIVERY_MODE must be a valid delivery mode", FieldGroupDelivery},
	ErrCodeDeliveryModeDuplicate: {"DELIVERY_MODE must contain unique delivery modes", FieldGroupDelivery},

	ErrCodeVenueRequired:  {"VENUE is required for this delivery method", FieldGroupVenue},
	ErrCodeVenueInvalid:   {"VENUE did not match any of your live venues", FieldGroupVenue},
	ErrCodeVenueAmbiguous: {"VENUE matched more than one of your venues", FieldGroupVenue},

	ErrCodeRadiusRequired: {"RADIUS is required when the delivery method is both", FieldGroupDelivery},
	ErrCodeRadiusFormat:   {"RADIUS must be a whole number", FieldGroupDelivery},
	ErrCodeRadiusRange:    {"RADIUS must be between 1 and 874", FieldGroupDelivery},

	ErrCodeAcrossEnglandRequired:    {"ACROSS_ENGLAND must be yes or no when the delivery method is both", FieldGroupDelivery},
	ErrCodeNationalDeliveryRequired: {"NATIONAL_DELIVERY must be yes or no when the delivery method is employer", FieldGroupDelivery},

	ErrCodeRegionsRequired:  {"At least one REGION or SUB_REGION is required for non-national employer delivery", FieldGroupRegions},
	ErrCodeRegionInvalid:    {"REGION contains invalid region names", FieldGroupRegions},
	ErrCodeSubRegionInvalid: {"SUB_REGION contains invalid sub region names", FieldGroupRegions},

	ErrCodeQualificationRequired: {"A standard or a framework is required", FieldGroupQualification},
	ErrCodeStandardAndFramework:  {"Values for both standard and framework cannot be present on the same row", FieldGroupQualification},
	ErrCodeStandardCodeFormat:    {"STANDARD_CODE and STANDARD_VERSION must be numeric if present", FieldGroupQualification},
	ErrCodeStandardIncomplete:    {"STANDARD_CODE and STANDARD_VERSION must both be present", FieldGroupQualification},
	ErrCodeStandardNotFound:      {"Standard was not found for the code and version given", FieldGroupQualification},
	ErrCodeStandardExpired:       {"Standard is no longer available", FieldGroupQualification},
	ErrCodeFrameworkCodeFormat:   {"FRAMEWORK_CODE, FRAMEWORK_PROG_TYPE and FRAMEWORK_PATHWAY_CODE must be numeric if present", FieldGroupQualification},
	ErrCodeFrameworkIncomplete:   {"FRAMEWORK_CODE, FRAMEWORK_PROG_TYPE and FRAMEWORK_PATHWAY_CODE must all be present", FieldGroupQualification},
	ErrCodeFrameworkNotFound:     {"Framework was not found for the codes given", FieldGroupQualification},
	ErrCodeFrameworkExpired:      {"Framework is no longer available", FieldGroupQualification},
}

// ErrorDetailFor returns the registered detail for a code. Unknown codes get
// a generic detail rather than a panic so stored rows from older versions
// still render.
func ErrorDetailFor(code string) ErrorDetail {
	if d, ok := errorRegistry[code]; ok {
		return d
	}
	return ErrorDetail{Message: code, FieldGroup: FieldGroupDetails}
}
