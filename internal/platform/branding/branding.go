// Package branding centralizes user-facing product naming.
package branding

// AppName is the product name shown to end users.
const AppName = "Crossing.Space"
