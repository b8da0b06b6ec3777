package models

// FAQEntry is a previously answered question. The JSON field names match the
// on-disk faq.json layout.
type FAQEntry struct {
	Query  string `json:"query"`
	Answer string `json:"answer"`
}
