package detour

import (
	"fmt"
	"strings"

	"github.com/gorustyt/irrnav/common"
)

type DtStatus uint32

const (
	// High level status.
	DT_FAILURE     DtStatus = 1 << 31 // Operation failed.
	DT_SUCCESS     DtStatus = 1 << 30 // Operation succeed.
	DT_IN_PROGRESS DtStatus = 1 << 29 // Operation still in progress.

	// Detail information for status.
	DT_STATUS_DETAIL_MASK DtStatus = 0x0ffffff
	DT_WRONG_MAGIC        DtStatus = 1 << 0 // Input data is not recognized.
	DT_WRONG_VERSION      DtStatus = 1 << 1 // Input data is in wrong version.
	DT_OUT_OF_MEMORY      DtStatus = 1 << 2 // Operation ran out of memory.
	DT_INVALID_PARAM      DtStatus = 1 << 3 // An input parameter was invalid.
	DT_BUFFER_TOO_SMALL   DtStatus = 1 << 4 // Result buffer for the query was too small to store all results.
	DT_OUT_OF_NODES       DtStatus = 1 << 5 // Query ran out of nodes during search.
	DT_PARTIAL_RESULT     DtStatus = 1 << 6 // Query did not reach the end location, returning best guess.
	DT_ALREADY_OCCUPIED   DtStatus = 1 << 7 // A tile has already been assigned to the given x,y coordinate
)

// Returns true of status is success.
func (status DtStatus) DtStatusSucceed() bool {
	return (status & DT_SUCCESS) != 0
}

// Returns true of status is failure.
func (status DtStatus) DtStatusFailed() bool {
	return (status & DT_FAILURE) != 0
}

// Returns true of status is in progress.
func (status DtStatus) DtStatusInProgress() bool {
	return (status & DT_IN_PROGRESS) != 0
}

// Returns true if specific detail is set.
func (status DtStatus) DtStatusDetail(detail DtStatus) bool {
	return (status & detail) != 0
}

var statusDetailNames = []struct {
	bit  DtStatus
	name string
}{
	{DT_WRONG_MAGIC, "wrong magic"},
	{DT_WRONG_VERSION, "wrong version"},
	{DT_OUT_OF_MEMORY, "out of memory"},
	{DT_INVALID_PARAM, "invalid param"},
	{DT_BUFFER_TOO_SMALL, "buffer too small"},
	{DT_OUT_OF_NODES, "out of nodes"},
	{DT_PARTIAL_RESULT, "partial result"},
	{DT_ALREADY_OCCUPIED, "already occupied"},
}

func (status DtStatus) String() string {
	var sb strings.Builder
	switch {
	case status.DtStatusFailed():
		sb.WriteString("failure")
	case status.DtStatusInProgress():
		sb.WriteString("in progress")
	case status.DtStatusSucceed():
		sb.WriteString("success")
	default:
		return fmt.Sprintf("status(%#x)", uint32(status))
	}
	for _, d := range statusDetailNames {
		if status.DtStatusDetail(d.bit) {
			sb.WriteString(", ")
			sb.WriteString(d.name)
		}
	}
	return sb.String()
}

// statusError converts a failed status into an error wrapping the matching
// common sentinel.
func statusError(op string, status DtStatus) error {
	switch {
	case status.DtStatusDetail(DT_OUT_OF_MEMORY | DT_OUT_OF_NODES | DT_BUFFER_TOO_SMALL):
		return fmt.Errorf("%s: %s: %w", op, status, common.ErrAllocation)
	default:
		return fmt.Errorf("%s: %s: %w", op, status, common.ErrInput)
	}
}

// Err returns nil for a successful status and the matching error otherwise.
func (status DtStatus) Err(op string) error {
	if !status.DtStatusFailed() {
		return nil
	}
	return statusError(op, status)
}
