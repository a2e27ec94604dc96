package constants

// FileStatus is the outcome of one image in a batch run.
type FileStatus string

const (
	FileStatusProcessed FileStatus = "PROCESSED" // OCR, extraction and storage all succeeded
	FileStatusSkipped   FileStatus = "SKIPPED"   // image could not be decoded
	FileStatusFailed    FileStatus = "FAILED"    // OCR or storage failure
)
