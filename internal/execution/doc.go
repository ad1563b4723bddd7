// Package execution runs the order lifecycle protocols: place with a
// fill deadline and bounded replacement, and close with a walking limit
// price.
//
// The manager is the only component that submits or cancels orders.
// Every order mutation is persisted before the next order-affecting
// action, so a crash mid-protocol leaves an auditable trail rather
// than an unknown venue state.
package execution
