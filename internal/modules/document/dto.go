package document

// UploadDocumentForm is the multipart form for creating a document; the
// file part is handled separately by the handler.
type UploadDocumentForm struct {
	Title       string `form:"title"       binding:"required"`
	DocDate     string `form:"doc_date"`
	Description string `form:"description"`
}

// UpdateDocumentForm is the multipart form for updating document metadata;
// a new file part replaces the stored object when present.
type UpdateDocumentForm struct {
	Title       *string `form:"title"`
	DocDate     *string `form:"doc_date"`
	Description *string `form:"description"`
}

// ReorderItem assigns a new order_index to one document.
type ReorderItem struct {
	ID         string `json:"id"          binding:"required"`
	OrderIndex int    `json:"order_index"`
}

// ReorderDTO is the request body for a bulk reorder.
type ReorderDTO struct {
	Documents []ReorderItem `json:"documents" binding:"required,min=1,dive"`
}
