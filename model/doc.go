// Package model defines the provider‑agnostic abstraction used by model backed
// runners to talk to a language model.
//
// Core goals:
//   - Keep request/response shapes minimal and transport independent
//   - Normalize vendor failures into APIError so callers can classify them
//     without importing vendor SDKs
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (e.g. OpenAI, Anthropic) implement the Model interface from this
// package so higher layers (runners) remain decoupled from vendor SDKs.
package model
