package document

import "time"

// Document is an uploaded PDF. It is created before any page processing
// starts and is never updated afterwards; deleting it deletes its pages.
type Document struct {
	ID         int64     `json:"id" gorm:"primaryKey" bson:"_id"`
	Filename   string    `json:"filename" gorm:"size:255;not null" bson:"filename"`
	StoredPath string    `json:"stored_path" gorm:"size:512;not null" bson:"stored_path"`
	UploadedAt time.Time `json:"uploaded_at" gorm:"not null" bson:"uploaded_at"`
	Pages      []Page    `json:"-" gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE" bson:"-"`
}

// Page is one rendered and recognized page of a Document. PageNumber is
// 1-based and contiguous within its document. OCRText is nil when
// recognition failed for the page.
type Page struct {
	ID               int64     `json:"id" gorm:"primaryKey" bson:"_id"`
	DocumentID       int64     `json:"document_id" gorm:"not null;uniqueIndex:ux_pages_document_page" bson:"document_id"`
	PageNumber       int       `json:"page_number" gorm:"not null;uniqueIndex:ux_pages_document_page" bson:"page_number"`
	RegularImagePath string    `json:"regular_image_path" gorm:"size:512;not null" bson:"regular_image_path"`
	ZoomedImagePath  string    `json:"zoomed_image_path" gorm:"size:512;not null" bson:"zoomed_image_path"`
	OCRText          *string   `json:"ocr_text" gorm:"column:ocr_text;type:text" bson:"ocr_text"`
	CreatedAt        time.Time `json:"created_at" gorm:"not null" bson:"created_at"`
}

// Text returns the extracted text, or "" when none was stored.
func (p *Page) Text() string {
	if p.OCRText == nil {
		return ""
	}
	return *p.OCRText
}

// PageText is a page joined with its document's filename, as returned by
// the search and recent-activity read paths.
type PageText struct {
	PageID     int64   `gorm:"column:page_id"`
	PageNumber int     `gorm:"column:page_number"`
	Filename   string  `gorm:"column:filename"`
	OCRText    *string `gorm:"column:ocr_text"`
}

// Text returns the extracted text, or "" when none was stored.
func (p PageText) Text() string {
	if p.OCRText == nil {
		return ""
	}
	return *p.OCRText
}

// PageDetail is a single page with its owning document's filename.
type PageDetail struct {
	ID               int64   `gorm:"column:id"`
	DocumentID       int64   `gorm:"column:document_id"`
	PageNumber       int     `gorm:"column:page_number"`
	Filename         string  `gorm:"column:filename"`
	RegularImagePath string  `gorm:"column:regular_image_path"`
	ZoomedImagePath  string  `gorm:"column:zoomed_image_path"`
	OCRText          *string `gorm:"column:ocr_text"`
}

// DocumentSummary is a document with its committed page count.
type DocumentSummary struct {
	ID         int64     `json:"id" gorm:"column:id"`
	Filename   string    `json:"filename" gorm:"column:filename"`
	UploadedAt time.Time `json:"uploaded_at" gorm:"column:uploaded_at"`
	PageCount  int64     `json:"page_count" gorm:"column:page_count"`
}
