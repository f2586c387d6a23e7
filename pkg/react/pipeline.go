package react

// NewDefaultPipeline wires the fixed R1-R8 sequence with the given
// injected adapters.
func NewDefaultPipeline(client LLMClient, executor SkillExecutor, ledger IdempotencyLedger, observer ResultObserver) *Pipeline {
	return NewPipeline(
		BuildObservation{},
		Decide{Client: client},
		CompileOps{},
		Guardrails{},
		HumanApproval{},
		Dispatch{Executor: executor, Ledger: ledger},
		ObserveResult{Observer: observer},
		StopOrLoop{},
	)
}
