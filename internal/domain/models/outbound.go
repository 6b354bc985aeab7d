package models

// OutboundMessageRequest is a text notification addressed to a WhatsApp recipient.
type OutboundMessageRequest struct {
	To         string `json:"to"`
	Message    string `json:"message"`
	PreviewURL bool   `json:"preview_url"`
}
