package domain

// PushPayload is the generic push channel schema. Every field is optional.
type PushPayload struct {
	Title *string `json:"title,omitempty"`
	Body  *string `json:"body,omitempty"`
	URL   *string `json:"url,omitempty"`
}

// VendorPushPayload is the vendor messaging channel envelope.
type VendorPushPayload struct {
	Notification *struct {
		Title *string `json:"title,omitempty"`
		Body  *string `json:"body,omitempty"`
		Icon  *string `json:"icon,omitempty"`
	} `json:"notification,omitempty"`
}

// Notification is the normalized form handed to the host display capability.
type Notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Icon  string `json:"icon"`
	Badge string `json:"badge,omitempty"`
	URL   string `json:"url,omitempty"`
}
