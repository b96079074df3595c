package attach

import (
	"errors"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/validation"
)

// The inventory line written by CFS for an image customization target looks like
//
//	ansible_host: cray-ims-<id>-service.ims.svc.cluster.local
//
// and the job running that target is labelled job-name=cray-ims-<id>-customize.
const (
	inventoryHostPrefix = "ansible_host:"
	imsServiceSuffix    = "-service.ims.svc.cluster.local"
	customizeJobSuffix  = "-customize"
)

// ErrMalformedInventory matches every DerivationError.
var ErrMalformedInventory = errors.New("malformed inventory host line")

// DerivationError reports an inventory line the target job name cannot be derived from.
type DerivationError struct {
	Input  string
	Reason string
}

// Error implements the error interface.
func (e *DerivationError) Error() string {
	return fmt.Sprintf("cannot derive target job from inventory line %q: %s", e.Input, e.Reason)
}

// Is implements custom error matching for errors.Is().
func (e *DerivationError) Is(target error) bool {
	return target == ErrMalformedInventory
}

// DeriveTargetJobName maps the discovered inventory host line to the
// job-name label of the image customization job.
func DeriveTargetJobName(discovered string) (string, error) {
	line := strings.TrimSpace(discovered)
	if line == "" {
		return "", &DerivationError{Input: discovered, Reason: "no image customization host in inventory"}
	}

	host, ok := strings.CutPrefix(line, inventoryHostPrefix)
	if !ok {
		return "", &DerivationError{Input: discovered, Reason: "missing " + inventoryHostPrefix + " prefix"}
	}
	host = strings.Trim(strings.TrimSpace(host), `"'`)

	service, ok := strings.CutSuffix(host, imsServiceSuffix)
	if !ok {
		return "", &DerivationError{Input: discovered, Reason: "host is not an IMS service address"}
	}
	if service == "" {
		return "", &DerivationError{Input: discovered, Reason: "empty service name"}
	}

	jobName := service + customizeJobSuffix
	if errs := validation.IsValidLabelValue(jobName); len(errs) > 0 {
		return "", &DerivationError{Input: discovered, Reason: strings.Join(errs, "; ")}
	}

	return jobName, nil
}
