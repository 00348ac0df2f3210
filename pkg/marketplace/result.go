package marketplace

// OperationResult is the envelope every façade write returns.
// Success and Error are mutually exclusive.
type OperationResult struct {
	Success   bool   `json:"success"`
	NFTID     string `json:"nftId,omitempty"`
	TxHash    string `json:"txHash,omitempty"`
	Result    string `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"errorKind,omitempty"`
}

// Succeeded builds a successful envelope from a submission.
func Succeeded(submission Submission) OperationResult {
	return OperationResult{
		Success: true,
		NFTID:   submission.NFTID,
		TxHash:  submission.TxHash,
		Result:  submission.ResultXDR,
	}
}

// Failed builds a failed envelope. A nil error still yields a failure with an internal kind.
func Failed(err error) OperationResult {
	if err == nil {
		return OperationResult{Success: false, Error: "unknown failure", ErrorKind: KindInternal}
	}
	return OperationResult{
		Success:   false,
		Error:     err.Error(),
		ErrorKind: ErrorKind(err),
	}
}
