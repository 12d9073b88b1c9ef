package profiler

import "strconv"

// numericSyscallName is the fallback label for a syscall number the name
// table doesn't cover.
func numericSyscallName(nr int) string {
	return "syscall_" + strconv.Itoa(nr)
}
