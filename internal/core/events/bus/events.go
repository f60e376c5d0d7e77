package bus

// Event types emitted by the scene core. Consumers subscribe by these names.
const (
	EventUnderwaterEnter = "underwater.enter"
	EventUnderwaterExit  = "underwater.exit"

	EventInteractionPerformed = "interaction.performed"
	EventBackgroundClick      = "interaction.background.click"
	EventEnterRange           = "interaction.enter_range"
	EventLeaveRange           = "interaction.leave_range"

	EventQualityResolved = "scene.quality.resolved"
)

// UnderwaterEnterData is the payload of EventUnderwaterEnter.
type UnderwaterEnterData struct {
	SourceID string
	Depth    float64
}

// UnderwaterExitData is the payload of EventUnderwaterExit.
type UnderwaterExitData struct {
	PreviousSourceID string
}

// InteractionData is the payload of EventInteractionPerformed, EventEnterRange
// and EventLeaveRange.
type InteractionData struct {
	InteractableID string
	Distance       float64
}

// QualityResolvedData is the payload of EventQualityResolved.
type QualityResolvedData struct {
	Tier string
}
