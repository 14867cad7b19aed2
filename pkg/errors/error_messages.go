package errors

// ErrorMessages holds the standard user-facing message for each error code.
var ErrorMessages = map[int]string{
	ErrMissingURL:        "URL is required",
	ErrMalformedURL:      "URL could not be parsed",
	ErrUnsupportedScheme: "Only http and https URLs are supported",
	ErrInvalidFormatID:   "Format identifier is invalid",
	ErrInvalidOutputDir:  "Output directory is invalid",

	ErrExtractorStartFailed: "Failed to start the extraction tool",
	ErrExtractorExitStatus:  "Failed to fetch video info",
	ErrExtractorBadOutput:   "Extraction tool returned unreadable output",
	ErrExtractorTimeout:     "Extraction tool timed out",

	ErrNoMatchingFormat: "Video format not found",
	ErrNoAudioSource:    "Audio source not found",
	ErrNoVideoSource:    "Video source not found",

	ErrTranscoderStartFailed: "Failed to start the transcoder",
	ErrTranscoderExitStatus:  "Transcoder exited with an error",
	ErrTranscoderPipe:        "Failed to attach to transcoder output",
	ErrEmptySelection:        "Nothing selected to transcode",

	ErrServerUnavailable: "Server could not be reached",
	ErrServerRejected:    "Server rejected the download",
	ErrWriteFailed:       "Failed to write the downloaded file",

	ErrMissingDependency: "Required binary not found",
	ErrConfigInvalid:     "Configuration is invalid",
	ErrFileCreateFailed:  "Failed to create output file",
	ErrInternal:          "Internal server error",
}

// GetErrorMessage returns the standard message for an error code.
func GetErrorMessage(code int) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return "Unknown error"
}

// Newf builds a StructuredError whose message is the standard message for code.
func Newf(errorType ErrorType, code int, details string) *StructuredError {
	return New(errorType, GetErrorMessage(code), details, code)
}
