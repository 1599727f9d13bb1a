package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"course-directory-backend/db/models"
	refservices "course-directory-backend/reference/services"
)

const (
	maxInformationLength = 750
	maxWebpageLength     = 255
	maxEmailLength       = 255
	maxURLLength         = 255
	maxPhoneLength       = 30
	minRadiusMiles       = 1
	maxRadiusMiles       = 874
	nationalRadiusMiles  = 600
	minDurationMonths    = 1
	maxDurationMonths    = 120
)

var (
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	urlPattern   = regexp.MustCompile(`^(https?://)?[a-zA-Z0-9][a-zA-Z0-9\-.]*\.[a-zA-Z]{2,}(/\S*)?$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9\s()\-]+$`)
	costPattern  = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	// Control characters other than tab break the error report export.
	invalidCharsPattern = regexp.MustCompile("[\x00-\x08\x0b\x0c\x0e-\x1f]")
)

// ResolvedRow is the outcome of validating one raw row against a reference
// snapshot. ErrorCodes is ordered and deterministic for a given row and
// snapshot.
type ResolvedRow struct {
	RowNumber  int
	Fields     map[string]string
	ErrorCodes []string
	Resolution models.RowResolution

	// GroupKey is the normalized qualification identity, blank when the
	// qualification could not be resolved. GroupID is assigned afterwards by
	// AssignGroups.
	GroupKey string
	GroupID  uuid.UUID
}

// Valid reports whether the row carries no errors.
func (r *ResolvedRow) Valid() bool { return len(r.ErrorCodes) == 0 }

// ValidateRow checks one raw row against the reference snapshot. It is pure:
// the same row and snapshot always produce the same errors and resolution,
// and the snapshot's FetchedAt is the clock for expiry checks.
func ValidateRow(raw RawRow, snap *refservices.Snapshot) ResolvedRow {
	v := &rowValidation{
		row:  ResolvedRow{RowNumber: raw.RowNumber, Fields: raw.Fields},
		snap: snap,
	}
	v.qualification()
	v.details()
	v.delivery()
	return v.row
}

// ValidateRows validates every row in file order.
func ValidateRows(raws []RawRow, snap *refservices.Snapshot) []ResolvedRow {
	out := make([]ResolvedRow, len(raws))
	for i, raw := range raws {
		out[i] = ValidateRow(raw, snap)
	}
	return out
}

type rowValidation struct {
	row  ResolvedRow
	snap *refservices.Snapshot
}

func (v *rowValidation) field(name string) string {
	return strings.TrimSpace(v.row.Fields[name])
}

func (v *rowValidation) addError(code string) {
	v.row.ErrorCodes = append(v.row.ErrorCodes, code)
}

// qualification resolves the standard-or-framework identity of the row and
// derives the group key. A row naming values from both families, or an
// incomplete or unknown identity, gets no group key.
func (v *rowValidation) qualification() {
	standardFields := []string{v.field(ColStandardCode), v.field(ColStandardVersion)}
	frameworkFields := []string{v.field(ColFrameworkCode), v.field(ColFrameworkProgType), v.field(ColFrameworkPathwayCode)}

	hasStandard := anyPresent(standardFields)
	hasFramework := anyPresent(frameworkFields)

	switch {
	case hasStandard && hasFramework:
		v.addError(ErrCodeStandardAndFramework)
	case hasStandard:
		v.resolveStandard(standardFields)
	case hasFramework:
		v.resolveFramework(frameworkFields)
	default:
		v.addError(ErrCodeQualificationRequired)
	}
}

func (v *rowValidation) resolveStandard(fields []string) {
	if !allPresent(fields) {
		v.addError(ErrCodeStandardIncomplete)
		return
	}
	nums, ok := parseInts(fields)
	if !ok {
		v.addError(ErrCodeStandardCodeFormat)
		return
	}
	v.row.Resolution.StandardCode = &nums[0]
	v.row.Resolution.StandardVersion = &nums[1]

	std := v.snap.StandardByKey(nums[0], nums[1])
	if std == nil {
		v.addError(ErrCodeStandardNotFound)
		return
	}
	if std.EffectiveTo != nil && std.EffectiveTo.Before(v.snap.FetchedAt) {
		v.addError(ErrCodeStandardExpired)
		return
	}
	v.row.Resolution.QualificationTitle = std.Title
	v.row.GroupKey = fmt.Sprintf("standard:%d:%d", nums[0], nums[1])
}

func (v *rowValidation) resolveFramework(fields []string) {
	if !allPresent(fields) {
		v.addError(ErrCodeFrameworkIncomplete)
		return
	}
	nums, ok := parseInts(fields)
	if !ok {
		v.addError(ErrCodeFrameworkCodeFormat)
		return
	}
	v.row.Resolution.FrameworkCode = &nums[0]
	v.row.Resolution.FrameworkProgType = &nums[1]
	v.row.Resolution.FrameworkPathwayCode = &nums[2]

	fw := v.snap.FrameworkByKey(nums[0], nums[1], nums[2])
	if fw == nil {
		v.addError(ErrCodeFrameworkNotFound)
		return
	}
	if fw.EffectiveTo != nil && fw.EffectiveTo.Before(v.snap.FetchedAt) {
		v.addError(ErrCodeFrameworkExpired)
		return
	}
	v.row.Resolution.QualificationTitle = fw.Title
	v.row.GroupKey = fmt.Sprintf("framework:%d:%d:%d", nums[0], nums[1], nums[2])
}

// details covers the free-text and numeric columns that validate
// independently of the delivery method.
func (v *rowValidation) details() {
	info := v.field(ColInformation)
	switch {
	case info == "":
		v.addError(ErrCodeInformationRequired)
	case len(info) > maxInformationLength:
		v.addError(ErrCodeInformationMaxLength)
	case invalidCharsPattern.MatchString(info):
		v.addError(ErrCodeInformationInvalidChars)
	}

	if webpage := v.field(ColWebpage); webpage != "" {
		if len(webpage) > maxWebpageLength {
			v.addError(ErrCodeWebpageMaxLength)
		} else if !urlPattern.MatchString(webpage) {
			v.addError(ErrCodeWebpageFormat)
		}
	}

	email := v.field(ColContactEmail)
	switch {
	case email == "":
		v.addError(ErrCodeContactEmailRequired)
	case len(email) > maxEmailLength:
		v.addError(ErrCodeContactEmailMaxLength)
	case !emailPattern.MatchString(email):
		v.addError(ErrCodeContactEmailFormat)
	}

	phone := v.field(ColContactPhone)
	switch {
	case phone == "":
		v.addError(ErrCodeContactPhoneRequired)
	case len(phone) > maxPhoneLength:
		v.addError(ErrCodeContactPhoneMaxLength)
	case !phonePattern.MatchString(phone):
		v.addError(ErrCodeContactPhoneFormat)
	}

	if contactURL := v.field(ColContactURL); contactURL != "" {
		if len(contactURL) > maxURLLength {
			v.addError(ErrCodeContactURLMaxLength)
		} else if !urlPattern.MatchString(contactURL) {
			v.addError(ErrCodeContactURLFormat)
		}
	}

	if cost := v.field(ColCost); cost != "" {
		if !costPattern.MatchString(cost) {
			v.addError(ErrCodeCostFormat)
		} else if d, err := decimal.NewFromString(cost); err == nil {
			v.row.Resolution.Cost = &d
		}
	}

	duration := v.field(ColDuration)
	switch {
	case duration == "":
		v.addError(ErrCodeDurationRequired)
	default:
		months, err := strconv.Atoi(duration)
		if err != nil {
			v.addError(ErrCodeDurationFormat)
		} else if months < minDurationMonths || months > maxDurationMonths {
			v.addError(ErrCodeDurationRange)
		} else {
			v.row.Resolution.DurationMonths = &months
		}
	}
}

// delivery validates the method column and then the cross-field rules the
// method demands.
func (v *rowValidation) delivery() {
	raw := v.field(ColDeliveryMethod)
	if raw == "" {
		v.addError(ErrCodeDeliveryMethodRequired)
		return
	}

	method := models.DeliveryMethod(strings.ToLower(raw))
	switch method {
	case models.DeliveryMethodClassroom:
		v.row.Resolution.DeliveryMethod = method
		v.deliveryModes(true)
		v.resolveVenue()
	case models.DeliveryMethodEmployer:
		v.row.Resolution.DeliveryMethod = method
		v.nationalDelivery()
	case models.DeliveryMethodBoth:
		v.row.Resolution.DeliveryMethod = method
		v.deliveryModes(true)
		v.resolveVenue()
		v.acrossEngland()
	default:
		v.addError(ErrCodeDeliveryMethodInvalid)
	}
}

// deliveryModes parses the semicolon separated DELIVERY_MODE list. Unknown
// modes and repeated modes each fail the whole list.
func (v *rowValidation) deliveryModes(required bool) {
	raw := v.field(ColDeliveryMode)
	if raw == "" {
		if required {
			v.addError(ErrCodeDeliveryModeRequired)
		}
		return
	}

	var modes []models.DeliveryMode
	seen := make(map[models.DeliveryMode]bool)
	for _, token := range strings.Split(raw, ";") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		mode := models.DeliveryMode(token)
		switch mode {
		case models.DeliveryModeDay, models.DeliveryModeBlock, models.DeliveryModeEmployer:
		default:
			v.addError(ErrCodeDeliveryModeInvalid)
			return
		}
		if seen[mode] {
			v.addError(ErrCodeDeliveryModeDuplicate)
			return
		}
		seen[mode] = true
		modes = append(modes, mode)
	}
	if len(modes) == 0 {
		if required {
			v.addError(ErrCodeDeliveryModeRequired)
		}
		return
	}
	v.row.Resolution.DeliveryModes = modes
}

// resolveVenue matches the row's venue columns against the provider's live
// venues. A supplied venue reference is authoritative: when present it must
// match exactly one venue by itself and the name column is never used as a
// fallback.
func (v *rowValidation) resolveVenue() {
	ref := v.field(ColVenueReference)
	name := v.field(ColVenue)

	if ref == "" && name == "" {
		v.addError(ErrCodeVenueRequired)
		return
	}

	var candidates []*models.Venue
	if ref != "" {
		candidates = v.snap.VenuesByRef(ref)
	} else {
		candidates = v.snap.VenuesByName(name)
	}

	switch len(candidates) {
	case 0:
		v.addError(ErrCodeVenueInvalid)
	case 1:
		id := candidates[0].ID
		v.row.Resolution.VenueID = &id
	default:
		v.addError(ErrCodeVenueAmbiguous)
	}
}

// radius parses RADIUS when present and enforces presence when required.
func (v *rowValidation) radius(required bool) {
	raw := v.field(ColRadius)
	if raw == "" {
		if required {
			v.addError(ErrCodeRadiusRequired)
		}
		return
	}
	miles, err := strconv.Atoi(raw)
	if err != nil {
		v.addError(ErrCodeRadiusFormat)
		return
	}
	if miles < minRadiusMiles || miles > maxRadiusMiles {
		v.addError(ErrCodeRadiusRange)
		return
	}
	v.row.Resolution.Radius = &miles
}

// acrossEngland handles the "both" method's reach columns. Answering yes
// forces the national radius and makes RADIUS optional; answering no makes
// RADIUS mandatory.
func (v *rowValidation) acrossEngland() {
	across, ok := parseYesNo(v.field(ColAcrossEngland))
	if !ok {
		v.addError(ErrCodeAcrossEnglandRequired)
		v.radius(false)
		return
	}
	v.row.Resolution.AcrossEngland = &across
	if across {
		national := nationalRadiusMiles
		v.row.Resolution.Radius = &national
		return
	}
	v.radius(true)
}

// nationalDelivery handles the employer method's reach columns. Non-national
// delivery must name at least one valid region or sub region.
func (v *rowValidation) nationalDelivery() {
	national, ok := parseYesNo(v.field(ColNationalDelivery))
	if !ok {
		v.addError(ErrCodeNationalDeliveryRequired)
		return
	}
	v.row.Resolution.National = &national
	if national {
		return
	}

	codes, regionOK := v.collectRegions()
	subCodes, subOK := v.collectSubRegions()
	if !regionOK || !subOK {
		return
	}
	codes = append(codes, subCodes...)
	codes = dedupeStrings(codes)
	if len(codes) == 0 {
		v.addError(ErrCodeRegionsRequired)
		return
	}
	v.row.Resolution.SubRegionCodes = codes
}

// collectRegions expands the REGION column into sub region codes. One
// unrecognized name invalidates the whole column.
func (v *rowValidation) collectRegions() ([]string, bool) {
	raw := v.field(ColRegion)
	if raw == "" {
		return nil, true
	}
	var codes []string
	for _, token := range strings.Split(raw, ";") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		sub, ok := v.snap.SubRegionCodesForRegion(token)
		if !ok {
			v.addError(ErrCodeRegionInvalid)
			return nil, false
		}
		codes = append(codes, sub...)
	}
	return codes, true
}

func (v *rowValidation) collectSubRegions() ([]string, bool) {
	raw := v.field(ColSubRegion)
	if raw == "" {
		return nil, true
	}
	var codes []string
	for _, token := range strings.Split(raw, ";") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		code, ok := v.snap.SubRegionCode(token)
		if !ok {
			v.addError(ErrCodeSubRegionInvalid)
			return nil, false
		}
		codes = append(codes, code)
	}
	return codes, true
}

func parseYesNo(raw string) (bool, bool) {
	switch strings.ToLower(raw) {
	case "yes":
		return true, true
	case "no":
		return false, true
	}
	return false, false
}

func anyPresent(fields []string) bool {
	for _, f := range fields {
		if f != "" {
			return true
		}
	}
	return false
}

func allPresent(fields []string) bool {
	for _, f := range fields {
		if f == "" {
			return false
		}
	}
	return true
}

func parseInts(fields []string) ([]int, bool) {
	out := make([]int, len(fields))
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return nil, false
		}
		out[i] = n
	}
	return out, true
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
