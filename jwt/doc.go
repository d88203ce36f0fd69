// Package jwt issues and verifies the short-lived identity credentials
// carried in the session side-channel token.
//
// The identity provider signs credentials with [Manager.CreateCredential];
// the server's route gate verifies them with [Manager.ParseCredential]
// without any store round-trip.
package jwt
