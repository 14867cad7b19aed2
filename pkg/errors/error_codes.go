package errors

// Error codes, grouped by ErrorType.
const (
	// InvalidInput (1000-1099)
	ErrMissingURL        = 1000
	ErrMalformedURL      = 1001
	ErrUnsupportedScheme = 1002
	ErrInvalidFormatID   = 1003
	ErrInvalidOutputDir  = 1004

	// ExtractionError (1100-1199)
	ErrExtractorStartFailed = 1100
	ErrExtractorExitStatus  = 1101
	ErrExtractorBadOutput   = 1102
	ErrExtractorTimeout     = 1103

	// FormatNotFound (1200-1299)
	ErrNoMatchingFormat = 1200
	ErrNoAudioSource    = 1201
	ErrNoVideoSource    = 1202

	// TranscodeFailed (1300-1399)
	ErrTranscoderStartFailed = 1300
	ErrTranscoderExitStatus  = 1301
	ErrTranscoderPipe        = 1302
	ErrEmptySelection        = 1303

	// DownloadError (1400-1499)
	ErrServerUnavailable = 1400
	ErrServerRejected    = 1401
	ErrWriteFailed       = 1402

	// SystemError (1500-1599)
	ErrMissingDependency = 1500
	ErrConfigInvalid     = 1501
	ErrFileCreateFailed  = 1502
	ErrInternal          = 1503
)
