// Package permission declares the permission vocabulary and the role
// definitions of the gateway. Both are registered during startup and frozen
// before serving; sessions then carry plain permission name sets resolved
// from the holder's role at login time.
package permission
