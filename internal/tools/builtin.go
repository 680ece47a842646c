package tools

// NewRegistry constructs a registry with every built-in tool registered,
// rooted at workDir.
func NewRegistry(workDir string) *Registry {
	r := New(workDir)
	r.registerReadOnly()
	mustRegister(r, writeFileDef(), writeFileHandler)
	mustRegister(r, applyDiffDef(), applyDiffHandler)
	mustRegister(r, runCommandDef(), runCommandHandler)
	mustRegister(r, exploreDef(), r.exploreHandler)
	mustRegister(r, writeTasksDef(), r.writeTasksHandler)
	mustRegister(r, updateTaskDef(), r.updateTaskHandler)
	mustRegister(r, readTasksDef(), r.readTasksHandler)
	return r
}

// NewReadOnlyRegistry constructs a registry containing only the safe
// tools, used by the explore sub-agent so it can never mutate the
// workspace.
func NewReadOnlyRegistry(workDir string) *Registry {
	r := New(workDir)
	r.registerReadOnly()
	return r
}

func (r *Registry) registerReadOnly() {
	mustRegister(r, readFileDef(), readFileHandler)
	mustRegister(r, listDirectoryDef(), listDirectoryHandler)
}

func mustRegister(r *Registry, def ToolDefinition, handler Handler) {
	if err := r.Register(def, handler); err != nil {
		panic(err)
	}
}
