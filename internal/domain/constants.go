package domain

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// Manageable system setting keys.
const (
	SettingMaxUserSyntheses   = "max_user_syntheses"
	SettingApplyWatermark     = "apply_watermark"
	SettingWatermarkPlacement = "watermark_placement"
	SettingWatermarkOpacity   = "watermark_opacity"
)

// ManageableSettings is the ordered list of keys exposed through the admin API.
var ManageableSettings = []string{
	SettingMaxUserSyntheses,
	SettingApplyWatermark,
	SettingWatermarkPlacement,
	SettingWatermarkOpacity,
}

const (
	WatermarkTile   = "tile"
	WatermarkCenter = "center"
)

// ItemCategories are the labels the classifier may return.
var ItemCategories = []string{"top", "bottom", "shoes", "bag", "accessory", "hair"}

// Synthesis abort reasons, surfaced as error codes.
const (
	AbortQuotaExceeded        = "quota_exceeded"
	AbortNoBaseModel          = "no_base_model"
	AbortBaseModelFetchFailed = "base_model_fetch_failed"
	AbortGenerationFailed     = "generation_failed"
	AbortInvalidItems         = "invalid_items"
	AbortInProgress           = "synthesis_in_progress"
	AbortUnsupportedBase      = "unsupported_base_source"
	AbortGeneratorDisabled    = "generator_unavailable"
	AbortLockUnavailable      = "lock_unavailable"
)

// UsageDateLayout is the calendar-date key of a usage record.
const UsageDateLayout = "2006-01-02"
