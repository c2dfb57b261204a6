package validate

// codes.go - Stable finding codes. Callers match on these strings, so they
// must never be renamed or reused for a different condition.

// Timeline codes.
const (
	CodeMeasureDurationOverflow  = "MEASURE_DURATION_OVERFLOW"
	CodeMeasureDurationUnderflow = "MEASURE_DURATION_UNDERFLOW"
	CodeBackupExceedsPosition    = "BACKUP_EXCEEDS_POSITION"
	CodeMeasurePositionNegative  = "MEASURE_POSITION_NEGATIVE"
)

// Bracket pairing codes.
const (
	CodeTieAlreadyOpen        = "TIE_ALREADY_OPEN"
	CodeTieStopWithoutStart   = "TIE_STOP_WITHOUT_START"
	CodeTieUnclosed           = "TIE_UNCLOSED"
	CodeBeamAlreadyOpen       = "BEAM_ALREADY_OPEN"
	CodeBeamContinueNotOpen   = "BEAM_CONTINUE_WITHOUT_START"
	CodeBeamStopWithoutStart  = "BEAM_STOP_WITHOUT_START"
	CodeBeamUnclosed          = "BEAM_UNCLOSED"
	CodeSlurAlreadyOpen       = "SLUR_ALREADY_OPEN"
	CodeSlurStopWithoutStart  = "SLUR_STOP_WITHOUT_START"
	CodeSlurUnclosed          = "SLUR_UNCLOSED"
	CodeTupletAlreadyOpen     = "TUPLET_ALREADY_OPEN"
	CodeTupletStopWithout     = "TUPLET_STOP_WITHOUT_START"
	CodeTupletUnclosed        = "TUPLET_UNCLOSED"
	CodeGroupAlreadyOpen      = "PART_GROUP_ALREADY_OPEN"
	CodeGroupStopWithoutStart = "PART_GROUP_STOP_WITHOUT_START"
	CodeGroupUnclosed         = "PART_GROUP_UNCLOSED"
)

// Voice and staff codes.
const (
	CodeVoiceNumberInvalid = "VOICE_NUMBER_INVALID"
	CodeStaffNumberInvalid = "STAFF_NUMBER_INVALID"
	CodeStaffExceedsStaves = "STAFF_EXCEEDS_STAVES"
	CodeClefStaffOutOfRange = "CLEF_STAFF_OUT_OF_RANGE"
	CodeClefMissing         = "CLEF_MISSING"
	CodeStavesChanged       = "STAVES_CHANGED"
)

// Part-level structural codes.
const (
	CodeDuplicatePartID       = "DUPLICATE_PART_ID"
	CodePartNotInPartList     = "PART_NOT_IN_PART_LIST"
	CodePartListOrphan        = "PART_LIST_ORPHAN"
	CodePartListDuplicate     = "PART_LIST_DUPLICATE"
	CodeMeasureCountMismatch  = "MEASURE_COUNT_MISMATCH"
	CodeMeasureNumberMismatch = "MEASURE_NUMBER_MISMATCH"
)

// Operation-layer codes. Edit operations report their pre-check failures
// with the same finding contract the validator uses.
const (
	CodeIndexOutOfRange       = "INDEX_OUT_OF_RANGE"
	CodePartNotFound          = "PART_NOT_FOUND"
	CodeTiePitchMismatch      = "TIE_PITCH_MISMATCH"
	CodeAccidentalOutOfBounds = "ACCIDENTAL_OUT_OF_BOUNDS"
	CodeInvalidArgument       = "INVALID_ARGUMENT"
	CodeNotANote              = "NOT_A_NOTE"
)
