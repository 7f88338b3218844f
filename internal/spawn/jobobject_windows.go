//go:build windows

package spawn

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// newKillOnCloseJobObject creates an unnamed kernel job object configured
// so that every process assigned to it dies the moment the job handle is
// closed or TerminateJobObject is called, giving Terminate atomic,
// whole-tree semantics without having to track descendant pids ourselves.
func newKillOnCloseJobObject() (windows.Handle, error) {
	job, err := windows.CreateJobObject(nil, nil)
	if err != nil {
		return 0, err
	}

	info := windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION{
		BasicLimitInformation: windows.JOBOBJECT_BASIC_LIMIT_INFORMATION{
			LimitFlags: windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE,
		},
	}

	_, err = windows.SetInformationJobObject(
		job,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	)
	if err != nil {
		_ = windows.CloseHandle(job)
		return 0, err
	}

	return job, nil
}
