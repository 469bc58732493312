package driven

import (
	"context"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
)

// CodePrompter supplies a two-factor verification code when a login hits
// a challenge. Implementations may prompt interactively or return a
// pre-arranged code programmatically.
type CodePrompter interface {
	// PromptCode asks for the verification code sent to one of the given
	// devices. The devices keep the order the service reported them.
	PromptCode(ctx context.Context, devices []domain.TrustedDevice) (string, error)
}
