package assembler

// Capability names invoked by leaves. The runtime binds each name to an
// implementation; the description only refers to them.
const (
	CapMoveBase          = "move_base"
	CapWait              = "wait"
	CapCheckMarker       = "check_marker"
	CapObserveTable      = "observe_table"
	CapPreGraspArm       = "pre_grasp_arm"
	CapMoveItMarker      = "moveit_marker"
	CapRotateBeforeGrasp = "rotate_before_grasp"
	CapFinalGrasp        = "final_grasp"
	CapCloseGripper      = "close_gripper"
	CapOpenGripper       = "open_gripper"
	CapArmHome           = "arm_home"
	CapLookForwardRaise  = "look_forward_and_raise"
)

// Capabilities lists every capability a description may reference.
var Capabilities = []string{
	CapMoveBase,
	CapWait,
	CapCheckMarker,
	CapObserveTable,
	CapPreGraspArm,
	CapMoveItMarker,
	CapRotateBeforeGrasp,
	CapFinalGrasp,
	CapCloseGripper,
	CapOpenGripper,
	CapArmHome,
	CapLookForwardRaise,
}

// markerTimeout is how long check_marker waits for a pose, in seconds.
const markerTimeout = "2"
