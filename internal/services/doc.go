// Package services defines the error taxonomy shared by the capture session
// components and helpers for tagging errors with component context.
package services
