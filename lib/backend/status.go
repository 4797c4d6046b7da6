package backend

// StatusFromFlags derives the normalized container status from the engine's
// running and paused flags. The order matters: a container that is not
// running is stopped regardless of its paused flag; the paused flag is only
// consulted while the running flag is set.
func StatusFromFlags(running, paused bool) ContainerStatus {
	if !running {
		return StatusStopped
	}
	if paused {
		return StatusSuspended
	}
	return StatusRunning
}

// CanStart reports whether a start transition is legal from the given status.
func (s ContainerStatus) CanStart() bool { return s == StatusStopped }

// CanStop reports whether a stop transition is legal from the given status.
// Stopping a suspended container is legal; the backend resumes it first.
func (s ContainerStatus) CanStop() bool { return s == StatusRunning || s == StatusSuspended }

// CanSuspend reports whether a suspend transition is legal from the given status.
func (s ContainerStatus) CanSuspend() bool { return s == StatusRunning }

// CanResume reports whether a resume transition is legal from the given status.
func (s ContainerStatus) CanResume() bool { return s == StatusSuspended }

// CanExec reports whether commands may be executed in the given status.
// Suspended containers are explicitly excluded.
func (s ContainerStatus) CanExec() bool { return s == StatusRunning }
