// Package domain contains the core entities of the task lifecycle engine:
// the persisted task record and the state machine that governs how its
// status moves from creation to a terminal outcome. It is independent of any
// storage or transport mechanism.
package domain
