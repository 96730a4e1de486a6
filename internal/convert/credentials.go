package convert

import (
	"fmt"
	"strings"

	"certmailer/internal/failure"
)

// Environment variables consulted last when resolving credentials.
const (
	EnvPublicKey = "ILOVEPDF_PUBLIC_KEY"
	EnvSecretKey = "ILOVEPDF_SECRET_KEY"
)

// Credentials is the public/secret key pair of the conversion API.
type Credentials struct {
	PublicKey string
	SecretKey string
}

// Complete reports whether both keys are set.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.PublicKey) != "" && strings.TrimSpace(c.SecretKey) != ""
}

// ResolveCredentials picks the first complete pair among explicit values,
// configured values and the environment.
func ResolveCredentials(explicit, configured Credentials, getenv func(string) string) (Credentials, error) {
	if explicit.Complete() {
		return explicit, nil
	}
	if configured.Complete() {
		return configured, nil
	}
	if getenv != nil {
		env := Credentials{PublicKey: getenv(EnvPublicKey), SecretKey: getenv(EnvSecretKey)}
		if env.Complete() {
			return env, nil
		}
	}
	return Credentials{}, fmt.Errorf("%w: conversion API keys not found: set ilovepdf.public_key and ilovepdf.secret_key, pass --public-key/--secret-key, or export %s and %s",
		failure.ErrConfiguration, EnvPublicKey, EnvSecretKey)
}
