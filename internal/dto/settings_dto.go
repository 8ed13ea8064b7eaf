package dto

// PopupSettings is the per-shop widget configuration blob stored under the
// popup_settings key.
type PopupSettings struct {
	Enabled    bool   `json:"enabled"`
	Message    string `json:"message"`
	LinkText   string `json:"link_text"`
	LinkURL    string `json:"link_url"`
	Position   string `json:"position"`
	BgColor    string `json:"bg_color"`
	TextColor  string `json:"text_color"`
	LinkColor  string `json:"link_color"`
	WidthPx    int    `json:"width_px"`
	PaddingPx  int    `json:"padding_px"`
	ZIndex     int    `json:"z_index"`
	DismissTTL int    `json:"dismiss_ttl_days"`
}

// UpdateSettingsResponse reports which fields were downgraded so the
// dashboard can surface an upgrade prompt.
type UpdateSettingsResponse struct {
	Settings         PopupSettings `json:"settings"`
	RestrictedFields []string      `json:"restricted_fields,omitempty"`
}

// StorefrontSettingsResponse is what the widget script fetches. Unknown
// shops get a disabled payload rather than an error.
type StorefrontSettingsResponse struct {
	Enabled  bool           `json:"enabled"`
	Settings *PopupSettings `json:"settings,omitempty"`
}
