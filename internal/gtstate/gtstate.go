// Package gtstate holds the canonical status/role string constants and the
// workflow id conventions shared by every agent type, so that no two
// packages invent their own spelling of "in_progress" or disagree about
// how a rig's witness workflow is addressed.
package gtstate

import "fmt"

// Status constants, used across WorkItem, Convoy, Agent, and Rig states.
const (
	StatusPending     = "pending"
	StatusAssigned    = "assigned"
	StatusInProgress  = "in_progress"
	StatusDone        = "done"
	StatusFailed      = "failed"
	StatusClosed      = "closed"
	StatusIdle        = "idle"
	StatusWorking     = "working"
	StatusStopped     = "stopped"
	StatusOpen        = "open"
	StatusQueued      = "queued"
	StatusValidating  = "validating"
	StatusMerging     = "merging"
	StatusMerged      = "merged"
	StatusOperational = "operational"
	StatusParked      = "parked"
	StatusDocked      = "docked"
	StatusStuck       = "stuck"
	StatusZombie      = "zombie"
	StatusDormant     = "dormant"
)

// Role constants, matching gtconst's role names one-to-one.
const (
	RoleMayor    = "mayor"
	RoleBoot     = "boot"
	RoleWitness  = "witness"
	RoleRefinery = "refinery"
	RolePolecat  = "polecat"
	RoleCrew     = "crew"
	RoleDog      = "dog"
)

// Workflow id conventions. Every running workflow is addressed by one of
// these deterministic ids; nothing is discovered by scanning.

// MayorWorkflowID is the single town-wide Mayor workflow's id.
func MayorWorkflowID() string { return "mayor" }

// BootWorkflowID is the single town-wide Boot supervisor workflow's id.
func BootWorkflowID() string { return "boot" }

// PatrolWorkflowID is the single town-wide Witness-of-witnesses patrol id.
func PatrolWorkflowID() string { return "patrol" }

// WitnessWorkflowID addresses a rig's Witness workflow.
func WitnessWorkflowID(rig string) string { return fmt.Sprintf("%s-witness", rig) }

// RefineryWorkflowID addresses a rig's Refinery workflow.
func RefineryWorkflowID(rig string) string { return fmt.Sprintf("%s-refinery", rig) }

// RigWorkflowID addresses a rig's own continue-as-new lifecycle workflow.
func RigWorkflowID(rig string) string { return fmt.Sprintf("rig-%s", rig) }

// PolecatWorkflowID addresses a single polecat's workflow within a rig.
func PolecatWorkflowID(rig, name string) string { return fmt.Sprintf("%s-polecat-%s", rig, name) }

// CrewWorkflowID addresses a single crew member's workflow within a rig.
func CrewWorkflowID(rig, name string) string { return fmt.Sprintf("%s-crew-%s", rig, name) }

// DogWorkflowID addresses a town-level dog workflow by name.
func DogWorkflowID(name string) string { return fmt.Sprintf("dog-%s", name) }

// MoleculeWorkflowID addresses a single formula run within a rig.
func MoleculeWorkflowID(rig, name string) string { return fmt.Sprintf("%s-mol-%s", rig, name) }
