// Package server provides the HTTP status surface: health and status
// endpoints for external front ends and the Prometheus metrics endpoint.
// The dictation core never renders UI; anything that wants to display the
// session reads it from here.
package server
