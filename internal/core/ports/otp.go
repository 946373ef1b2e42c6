package ports

import "context"

// OTPCodeGenerator produces a fresh numeric code for each issue.
type OTPCodeGenerator interface {
	Generate() (string, error)
}

// OTPSender hands a plaintext code to an out-of-band channel.
type OTPSender interface {
	Send(ctx context.Context, phone, code string) error
}
