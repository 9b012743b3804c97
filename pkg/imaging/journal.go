package imaging

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/woliveiras/imager/pkg/log"
)

// Journal phases.
const (
	PhasePlan    = "PLAN"
	PhaseSuccess = "APPLY_SUCCESS"
	PhaseFailed  = "APPLY_FAILED"
)

// AppendStateLog appends a human-readable entry to the state file describing
// the plan or apply phase of an operation.
func AppendStateLog(path string, plan Plan, phase string, applyErr error) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrapf(err, "open state file %s", path)
	}
	defer f.Close()

	if info, statErr := f.Stat(); statErr == nil && info.Size() == 0 {
		header := "# imager state log - each section describes a plan/apply run. Newest entries are at the bottom.\n\n"
		if _, err := f.WriteString(header); err != nil {
			return errors.Wrap(err, "write state header")
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "=== %s %s %s ===\n", phase, plan.Operation, time.Now().UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "source: %s\n", plan.Source)
	fmt.Fprintf(&b, "destination: %s\n", plan.Destination)
	fmt.Fprintf(&b, "steps:\n")
	for _, s := range plan.Steps {
		fmt.Fprintf(&b, "- %s: %s\n", s.Operation, s.CommandLine())
	}

	switch phase {
	case PhaseSuccess:
		fmt.Fprintf(&b, "result: SUCCESS\n\n")
	case PhaseFailed:
		fmt.Fprintf(&b, "result: FAILED: %v\n\n", applyErr)
	default:
		fmt.Fprintf(&b, "result: PENDING APPLY\n\n")
	}

	_, err = f.WriteString(b.String())
	return errors.Wrap(err, "write state entry")
}

// execute journals plan, applies it and journals the outcome. Journal
// failures are logged and never mask the apply result.
func (im *Imager) execute(ctx context.Context, plan Plan) error {
	log.Debugf("%s", plan)
	im.journal(plan, PhasePlan, nil)

	if err := Apply(ctx, plan.Steps, im.Runner); err != nil {
		im.journal(plan, PhaseFailed, err)
		return errors.Wrapf(err, "%s %s -> %s", plan.Operation, plan.Source, plan.Destination)
	}

	im.journal(plan, PhaseSuccess, nil)
	return nil
}

func (im *Imager) journal(plan Plan, phase string, err error) {
	if im.Config.StateFile == "" {
		return
	}
	if jerr := AppendStateLog(im.Config.StateFile, plan, phase, err); jerr != nil {
		log.Warnf("cannot write state file: %v", jerr)
	}
}
