package domain

import "fmt"

// PlaceholderQRCode is a 1x1 PNG returned until real QR rendering exists.
const PlaceholderQRCode = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg=="

// ShareLink is a deep link customers use to open a chat with an agent.
type ShareLink struct {
	AgentID   string `json:"agentId"`
	ShareLink string `json:"shareLink"`
	QRCode    string `json:"qrCode"`
}

// BuildShareLink derives the platform deep link for an agent.
func BuildShareLink(a *Agent) ShareLink {
	host := "t.me"
	if a.Platform == PlatformWhatsApp {
		host = "wa.me"
	}
	return ShareLink{
		AgentID:   a.ID,
		ShareLink: fmt.Sprintf("https://%s/wooagent_%s?start=share", host, a.ID),
		QRCode:    PlaceholderQRCode,
	}
}
