package commands

import (
	"errors"
	"fmt"
	"strconv"
	"unicode"

	"taskmaster/internal/view"
)

// CompletedLetter prefixes references into the Completed tab, e.g. c2.
const CompletedLetter = 'c'

// TaskRef represents a parsed task reference.
type TaskRef struct {
	Tab     view.Tab // tab the number counts in
	TaskNum int      // 1-based task number within the tab
}

// String renders the reference the way list prints it.
func (r TaskRef) String() string {
	if r.Tab == view.TabCompleted {
		return fmt.Sprintf("%c%d", CompletedLetter, r.TaskNum)
	}
	return strconv.Itoa(r.TaskNum)
}

// ErrTaskRefRequired indicates no task reference was provided.
var ErrTaskRefRequired = errors.New("task reference required")

// ParseTaskRef parses a task reference from args.
//
// Parsing rules:
// 1. If first arg is all digits → To Do tab reference
// 2. If first arg is c<digits> (e.g., c1, c12) → Completed tab reference
// 3. If first arg is c and second arg is all digits → separated reference (c 1)
// 4. If first arg is c with no second arg → error: task reference required
// 5. Otherwise → error: invalid task reference: <ref>
func ParseTaskRef(args []string) (TaskRef, error) {
	if len(args) == 0 {
		return TaskRef{}, ErrTaskRefRequired
	}

	firstArg := args[0]

	// Case 1: All digits → To Do tab
	if isAllDigits(firstArg) {
		num, err := strconv.Atoi(firstArg)
		if err != nil {
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
		}
		return TaskRef{Tab: view.TabPending, TaskNum: num}, nil
	}

	if len(firstArg) > 0 && rune(firstArg[0]) == CompletedLetter {
		// Case 2: c<digits>
		if len(firstArg) > 1 && isAllDigits(firstArg[1:]) {
			num, err := strconv.Atoi(firstArg[1:])
			if err != nil {
				return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
			}
			return TaskRef{Tab: view.TabCompleted, TaskNum: num}, nil
		}

		// Case 3: c followed by a separate number
		if len(firstArg) == 1 {
			if len(args) < 2 {
				// Case 4
				return TaskRef{}, ErrTaskRefRequired
			}
			secondArg := args[1]
			if isAllDigits(secondArg) {
				num, err := strconv.Atoi(secondArg)
				if err != nil {
					return TaskRef{}, fmt.Errorf("invalid task reference: %s", secondArg)
				}
				return TaskRef{Tab: view.TabCompleted, TaskNum: num}, nil
			}
			return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
		}
	}

	// Case 5: Invalid reference
	return TaskRef{}, fmt.Errorf("invalid task reference: %s", firstArg)
}

// ParseTaskRefs parses one or more task references, e.g. "1 c2 c 3".
// A trailing c with no number is invalid.
func ParseTaskRefs(args []string) ([]TaskRef, error) {
	if len(args) == 0 {
		return nil, ErrTaskRefRequired
	}

	var refs []TaskRef
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == string(CompletedLetter) {
			if i+1 >= len(args) || !isAllDigits(args[i+1]) {
				return nil, fmt.Errorf("invalid task reference: %s", arg)
			}
			ref, err := ParseTaskRef(args[i : i+2])
			if err != nil {
				return nil, err
			}
			refs = append(refs, ref)
			i++
			continue
		}
		ref, err := ParseTaskRef([]string{arg})
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// isAllDigits returns true if s consists only of ASCII digits and is non-empty.
func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
