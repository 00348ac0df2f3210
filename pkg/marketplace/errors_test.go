package marketplace

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

const (
	operationName    = "marketplace"
	subjectName      = "nft"
	codeName         = "invalid"
	baseErrorMessage = "base error"
)

func TestOperationErrorFormatting(test *testing.T) {
	test.Parallel()
	baseError := errors.New(baseErrorMessage)
	wrappedError := WrapError(operationName, subjectName, codeName, baseError)
	if wrappedError == nil {
		test.Fatalf("expected wrapped error")
	}
	expected := operationName + "." + subjectName + "." + codeName + ": " + baseErrorMessage
	if wrappedError.Error() != expected {
		test.Fatalf("expected %q, got %q", expected, wrappedError.Error())
	}
	if !errors.Is(wrappedError, baseError) {
		test.Fatalf("expected wrapped error to unwrap to base error")
	}
}

func TestWrapErrorNil(test *testing.T) {
	test.Parallel()
	if WrapError(operationName, subjectName, codeName, nil) != nil {
		test.Fatalf("expected nil wrapped error")
	}
}

func TestErrorKind(test *testing.T) {
	test.Parallel()
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "invalid input", err: fmt.Errorf("%w: name is required", ErrInvalidInput), want: KindInvalidInput},
		{name: "extension", err: ErrExtensionNotFound, want: KindExtensionNotFound},
		{name: "not connected", err: WrapError("wallet", "session", "sign", ErrNotConnected), want: KindNotConnected},
		{name: "signing", err: ErrSigningFailed, want: KindSigningFailed},
		{name: "timeout", err: fmt.Errorf("%w: poll", ErrTimeout), want: KindTimeout},
		{name: "deadline", err: context.DeadlineExceeded, want: KindTimeout},
		{name: "submission", err: ErrSubmissionFailed, want: KindSubmissionFailed},
		{name: "storage", err: ErrStorageUnavailable, want: KindStorageUnavailable},
		{name: "not found", err: ErrNFTNotFound, want: KindNotFound},
		{name: "other", err: errors.New("boom"), want: KindInternal},
	}
	for _, testCase := range cases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			if got := ErrorKind(testCase.err); got != testCase.want {
				test.Fatalf("expected %q, got %q", testCase.want, got)
			}
		})
	}
}

func TestFailedEnvelopeCarriesKind(test *testing.T) {
	test.Parallel()
	result := Failed(fmt.Errorf("%w: wallet", ErrNotConnected))
	if result.Success || result.Error == "" || result.ErrorKind != KindNotConnected {
		test.Fatalf("unexpected failed envelope: %+v", result)
	}
	success := Succeeded(Submission{NFTID: "NFT1", TxHash: "hash"})
	if !success.Success || success.Error != "" || success.ErrorKind != "" {
		test.Fatalf("unexpected success envelope: %+v", success)
	}
}
