package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var LocalesFS embed.FS

// Message keys used by the billing and reminder flows.
const (
	KeySyncNoCustomer     = "sync.no_customer"
	KeySyncNoSubscription = "sync.no_subscription"
	KeySyncStatusUpdated  = "sync.status_updated"
	KeySyncDone           = "sync.done"
	KeyPortalNoCustomer   = "portal.no_customer"
	KeyProfileUnavailable = "profile.unavailable"
	KeyUnauthorized       = "auth.unauthorized"
	KeyReminderTitle      = "reminder.push_title"
	KeyReminderBody       = "reminder.push_body"
	KeyAlertWriteFailure  = "alert.profile_write_failure"

	KeyAccessorWhatsAppRequired  = "accessor.whatsapp_required"
	KeyAccessorUserNotFound      = "accessor.user_not_found"
	KeyAccessorItemNotFound      = "accessor.item_not_found"
	KeyAccessorAccessDenied      = "accessor.access_denied"
	KeyAccessorInactive          = "accessor.inactive"
	KeyAccessorInvalidAction     = "accessor.invalid_action"
	KeyAccessorReportLink        = "accessor.report_link"
	KeyAccessorTransactionSaved  = "accessor.transaction_saved"
	KeyAccessorSubscriptionSaved = "accessor.subscription_saved"
	KeyAccessorReminderSaved     = "accessor.reminder_saved"
	KeyAccessorItemRemoved       = "accessor.item_removed"
	KeyAccessorItemUpdated       = "accessor.item_updated"
)

type Translator struct {
	lang         string
	translations map[string]string
}

// NewTranslator loads locales/<langCode>.yaml from fsys.
func NewTranslator(fsys fs.FS, langCode string) (*Translator, error) {
	filePath := path.Join("locales", fmt.Sprintf("%s.yaml", langCode))
	data, err := fs.ReadFile(fsys, filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read translation file %s: %w", filePath, err)
	}
	t, err := newTranslatorFromBytes(data)
	if err != nil {
		return nil, err
	}
	t.lang = langCode
	return t, nil
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T returns the message for key, formatted with args. Unknown keys are
// returned as-is.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

func (t *Translator) Lang() string { return t.lang }
