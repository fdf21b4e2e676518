// Package runner provides agent execution strategies behind core.AgentRunner.
//
// SimpleRunner turns a query plus injected history into one model.Request,
// calls a model.Model and classifies failures: deadlines become timeout
// errors, vendor API failures external-service errors and everything else
// runner errors. Func adapts plain functions.
//
// Runners never read memory. History reaches them only through
// core.RunOptions, which keeps them interchangeable behind the agent facade.
//
// Built-in runners are available by name through Open:
//
//	simple, openai  OpenAI Chat Completions, requires credential openai_api_key
//	anthropic       Anthropic Messages, requires credential anthropic_api_key
//	echo            deterministic mock model, no credential
package runner
