package handlers

// Keys of user-facing generation failures.
const (
	msgInvalidPayload     = "invalid_payload"
	msgProductRequired    = "product_required"
	msgWebhookMissing     = "webhook_missing"
	msgInsufficientPoints = "insufficient_points"
	msgSubmitFailed       = "submit_failed"
	msgInternal           = "internal"
)

var localized = map[string]map[string]string{
	"en": {
		msgInvalidPayload:     "The request could not be read.",
		msgProductRequired:    "Choose a product before generating a video.",
		msgWebhookMissing:     "Set your N8N webhook URL in preferences before generating videos.",
		msgInsufficientPoints: "You do not have enough points to generate a video.",
		msgSubmitFailed:       "The video workflow rejected the job.",
		msgInternal:           "Something went wrong. Please try again.",
	},
	"id": {
		msgInvalidPayload:     "Permintaan tidak dapat dibaca.",
		msgProductRequired:    "Pilih produk sebelum membuat video.",
		msgWebhookMissing:     "Atur URL webhook N8N di preferensi sebelum membuat video.",
		msgInsufficientPoints: "Poin Anda tidak cukup untuk membuat video.",
		msgSubmitFailed:       "Workflow video menolak pekerjaan ini.",
		msgInternal:           "Terjadi kesalahan. Silakan coba lagi.",
	},
}

func translate(locale, key string) string {
	if msgs, ok := localized[locale]; ok {
		if msg, ok := msgs[key]; ok {
			return msg
		}
	}
	return localized["en"][key]
}
