package dto

type UploadInitRequest struct {
	Filename       string `json:"filename"`
	ExpectedSize   *int64 `json:"expected_size,omitempty"`
	ExpectedSHA256 string `json:"expected_sha256,omitempty"`
}

type UploadInitResponse struct {
	UploadID string `json:"upload_id"`
}

// UploadCommitRequest may repeat or override the expectations given at initiation.
type UploadCommitRequest struct {
	ExpectedSize   *int64 `json:"expected_size,omitempty"`
	ExpectedSHA256 string `json:"expected_sha256,omitempty"`
	ContentType    string `json:"content_type,omitempty"`
	Note           string `json:"note,omitempty"`
}
