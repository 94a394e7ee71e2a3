// Copyright (c) AgentCore Authors.
// Licensed under the MIT License.

/*
Package types provides the shared type contracts of the agentcore runtime.

types is the lowest-level public package and depends on no other package in
the module. It defines the execution state shared by all agents of one
workflow run, the pending-action protocol embedded in that state, the wizard
dialog state, and the structured error taxonomy used across the runtime.

# Core types

  - State               — the mutable per-run execution state map
  - PendingAction       — "paused awaiting an external reply" marker
  - WizardState         — accumulated state of the guided CRUD dialog
  - Error / ErrorKind   — closed error taxonomy (Timeout / CircuitOpen /
    Execution / Protocol) with cause preservation

# Pending-action contract

A pending action is active if and only if Awaiting is true. The object may
remain present with Awaiting false after being cleared; callers must never
infer activity from mere key presence. Use HasAwaitingPendingAction.
*/
package types
