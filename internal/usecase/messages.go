package usecase

import "venux-billing/internal/infra/i18n"

const (
	keySyncNoCustomer     = i18n.KeySyncNoCustomer
	keySyncNoSubscription = i18n.KeySyncNoSubscription
	keySyncStatusUpdated  = i18n.KeySyncStatusUpdated
	keySyncDone           = i18n.KeySyncDone
	keyReminderTitle      = i18n.KeyReminderTitle
	keyReminderBody       = i18n.KeyReminderBody
	keyAlertWriteFailure  = i18n.KeyAlertWriteFailure

	keyAccessorWhatsAppRequired  = i18n.KeyAccessorWhatsAppRequired
	keyAccessorInvalidAction     = i18n.KeyAccessorInvalidAction
	keyAccessorReportLink        = i18n.KeyAccessorReportLink
	keyAccessorTransactionSaved  = i18n.KeyAccessorTransactionSaved
	keyAccessorSubscriptionSaved = i18n.KeyAccessorSubscriptionSaved
	keyAccessorReminderSaved     = i18n.KeyAccessorReminderSaved
	keyAccessorItemRemoved       = i18n.KeyAccessorItemRemoved
	keyAccessorItemUpdated       = i18n.KeyAccessorItemUpdated
)
