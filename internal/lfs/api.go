package lfs

// contentType is the media type used for every JSON body in the Git LFS API.
const contentType = "application/vnd.git-lfs+json"

// transferBasic is the only transfer adapter this server negotiates.
const transferBasic = "basic"

// Link is a single hyperlink embedded in an API response.
type Link struct {
	Href string `json:"href"`
}

// ObjectLinks is the "_links" section of legacy API responses.
type ObjectLinks struct {
	Self     *Link `json:"self,omitempty"`
	Download *Link `json:"download,omitempty"`
	Upload   *Link `json:"upload,omitempty"`
	Verify   *Link `json:"verify,omitempty"`
}

// MetaResponse is the body of GET /objects/{oid} and of the legacy
// POST /objects response for an already-stored object.
type MetaResponse struct {
	OID   string       `json:"oid,omitempty"`
	Size  int64        `json:"size,omitempty"`
	Links *ObjectLinks `json:"_links,omitempty"`
}

// legacyRequest is the body of the legacy single-object POST /objects API.
// Pointer fields distinguish absent from zero-valued; both are required.
type legacyRequest struct {
	OID  *string `json:"oid"`
	Size *int64  `json:"size"`
}

// batchRequest is the body of POST /objects/batch.
type batchRequest struct {
	Operation *string        `json:"operation"`
	Objects   *[]batchObject `json:"objects"`
}

type batchObject struct {
	OID  *string `json:"oid"`
	Size *int64  `json:"size"`
}

// BatchActions holds the transfer actions a client may perform on an object.
type BatchActions struct {
	Upload *Link `json:"upload,omitempty"`
	Verify *Link `json:"verify,omitempty"`
}

// BatchError is the per-object error embedded in a batch response item. The
// code is HTTP-style but lives in the JSON body, not the outer status.
type BatchError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// BatchItem is one entry in a batch response. Exactly one of Actions or Error
// is set for objects that need attention; an already-stored object has neither.
type BatchItem struct {
	OID     string        `json:"oid"`
	Size    int64         `json:"size"`
	Actions *BatchActions `json:"actions,omitempty"`
	Error   *BatchError   `json:"error,omitempty"`
}

// BatchResponse is the body of a successful POST /objects/batch.
type BatchResponse struct {
	Transfer string      `json:"transfer"`
	Objects  []BatchItem `json:"objects"`
}

// ErrorResponse is the body of every top-level HTTP error response.
type ErrorResponse struct {
	Message string `json:"message"`
}
