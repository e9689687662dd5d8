package models

import "time"

// Well-known integration ids.
const (
	IntegrationEmail    = "email"
	IntegrationWhatsApp = "whatsapp"
	IntegrationSlack    = "slack"
	IntegrationDiscord  = "discord"
	IntegrationTelegram = "telegram"
	IntegrationTeams    = "teams"
)

// Integration holds one user's credentials for one external service.
// Credentials are stored encrypted; the credential store hands them out decrypted.
type Integration struct {
	UserID        string            `json:"userId"`
	IntegrationID string            `json:"integrationId"`
	Credentials   map[string]string `json:"credentials"`
	IsActive      bool              `json:"isActive"`
	LastUpdated   time.Time         `json:"lastUpdated"`
	CreatedAt     time.Time         `json:"createdAt"`
}
