// Package negotiator turns a connection's requested provider and model into
// concrete generation bindings.
package negotiator

import (
	"ai-search-be/internal/pkg/logger"
	"ai-search-be/pkg/embedding"
	"ai-search-be/pkg/llm"
	"ai-search-be/pkg/provider"
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// CustomTemperature applies to every binding on a caller-supplied endpoint.
const CustomTemperature = 0.7

const (
	TargetChat      = "chat"
	TargetEmbedding = "embedding"
)

// Selection is what the client asked for. Empty fields mean "not given".
type Selection struct {
	Provider      string
	Model         string
	CustomBaseURL string
	CustomAPIKey  string
}

type GenerationParams struct {
	Temperature float64
}

// Options turns the params into per-call llm options.
func (p GenerationParams) Options() []llm.Option {
	if p.Temperature <= 0 {
		return nil
	}
	return []llm.Option{llm.WithTemperature(p.Temperature)}
}

type CustomEndpoint struct {
	BaseURL string
	APIKey  string
}

// Binding is the resolved provider/model pair for one connection. It is never
// modified after Resolve returns it.
type Binding[H any] struct {
	Provider string
	Model    string
	Handle   H
	Custom   *CustomEndpoint
	Params   GenerationParams
}

type Bindings struct {
	Chat      Binding[llm.LLMProvider]
	Embedding Binding[embedding.Embedder]
}

// CustomFactory builds a handle for a custom endpoint.
type CustomFactory[H any] func(endpoint CustomEndpoint, model string) H

// Resolve picks a binding from cat. target only labels errors.
func Resolve[H any](cat provider.Catalog[H], target string, sel Selection, custom CustomFactory[H], params GenerationParams) (Binding[H], error) {
	providerName := sel.Provider
	if providerName == "" {
		first, ok := cat.FirstProvider()
		if !ok {
			return Binding[H]{}, &NegotiationError{Kind: ReasonInvalidModelSelection, Target: target}
		}
		providerName = first
	}

	if providerName == provider.CustomProvider {
		if sel.CustomBaseURL == "" || sel.CustomAPIKey == "" {
			return Binding[H]{}, &NegotiationError{Kind: ReasonMissingCustomCredentials, Target: target, Provider: providerName, Model: sel.Model}
		}
		if sel.Model == "" || custom == nil {
			return Binding[H]{}, &NegotiationError{Kind: ReasonInvalidModelSelection, Target: target, Provider: providerName}
		}
		endpoint := CustomEndpoint{BaseURL: sel.CustomBaseURL, APIKey: sel.CustomAPIKey}
		return Binding[H]{
			Provider: providerName,
			Model:    sel.Model,
			Handle:   custom(endpoint, sel.Model),
			Custom:   &endpoint,
			Params:   GenerationParams{Temperature: CustomTemperature},
		}, nil
	}

	var (
		model provider.Model[H]
		ok    bool
	)
	if sel.Model == "" {
		model, ok = cat.FirstModel(providerName)
	} else {
		model, ok = cat.Lookup(providerName, sel.Model)
	}
	if !ok {
		return Binding[H]{}, &NegotiationError{Kind: ReasonInvalidModelSelection, Target: target, Provider: providerName, Model: sel.Model}
	}

	return Binding[H]{
		Provider: providerName,
		Model:    model.Name,
		Handle:   model.Handle,
		Params:   params,
	}, nil
}

type Negotiator struct {
	chat      *provider.Registry[llm.LLMProvider]
	embedding *provider.Registry[embedding.Embedder]
	custom    CustomFactory[llm.LLMProvider]
	params    GenerationParams
	logger    logger.ILogger
}

func New(
	chat *provider.Registry[llm.LLMProvider],
	emb *provider.Registry[embedding.Embedder],
	custom CustomFactory[llm.LLMProvider],
	params GenerationParams,
	log logger.ILogger,
) *Negotiator {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Negotiator{chat: chat, embedding: emb, custom: custom, params: params, logger: log}
}

// Negotiate refreshes both catalogs and resolves both bindings concurrently.
// Either failure fails the whole negotiation.
func (n *Negotiator) Negotiate(ctx context.Context, chat, emb Selection) (Bindings, error) {
	var out Bindings
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b, err := Resolve(n.chat.Refresh(gctx), TargetChat, chat, n.custom, n.params)
		if err != nil {
			return err
		}
		out.Chat = b
		return nil
	})
	g.Go(func() error {
		// Custom endpoints only serve chat; embeddings always come from the catalog.
		b, err := Resolve[embedding.Embedder](n.embedding.Refresh(gctx), TargetEmbedding, emb, nil, n.params)
		if err != nil {
			return err
		}
		out.Embedding = b
		return nil
	})

	if err := g.Wait(); err != nil {
		n.logger.Warn("NEGOTIATOR", "Negotiation failed", map[string]interface{}{
			"chat_provider":      chat.Provider,
			"chat_model":         chat.Model,
			"embedding_provider": emb.Provider,
			"embedding_model":    emb.Model,
			"error":              err.Error(),
		})
		return Bindings{}, fmt.Errorf("negotiate: %w", err)
	}

	n.logger.Info("NEGOTIATOR", "Session bound", map[string]interface{}{
		"chat_provider":      out.Chat.Provider,
		"chat_model":         out.Chat.Model,
		"embedding_provider": out.Embedding.Provider,
		"embedding_model":    out.Embedding.Model,
		"custom":             out.Chat.Custom != nil,
	})
	return out, nil
}
