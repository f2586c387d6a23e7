package kernel

// NewDefaultPipeline builds the standard K1-K6 pipeline against the given
// telemetry and world sources.
func NewDefaultPipeline(telemetry TelemetrySource, world WorldSource) *Pipeline {
	return NewPipeline(
		HCIIngress{},
		TelemetrySync{Source: telemetry},
		WorldUpdate{Source: world},
		EventArbitrate{},
		TaskQueue{},
		KernelRoute{},
	)
}
