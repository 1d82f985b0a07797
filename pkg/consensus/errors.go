package consensus

import (
	"fmt"

	"github.com/sanketsaagar/lightchain-l1/pkg/errs"
)

var (
	errBadHeight     = fmt.Errorf("%w: proposal height does not match view", errs.ErrBadHeight)
	errBadParent     = fmt.Errorf("%w: proposal parent does not match tip", errs.ErrBadParent)
	errGasOverLimit  = fmt.Errorf("%w: gas_used exceeds gas_limit", errs.ErrInvalidMessage)
	errExtraTooLarge = fmt.Errorf("%w: extra data exceeds bound", errs.ErrExtraTooLarge)
	errBadTimestamp  = fmt.Errorf("%w: timestamp outside clock drift", errs.ErrBadTimestamp)
)
