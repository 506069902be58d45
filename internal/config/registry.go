package config

import (
	"errors"
	"fmt"
	"sync"

	"github.com/MrWong99/sonoxa/pkg/codec"
)

// ErrNotRegistered is returned by Create* methods when no factory has been
// registered under the requested name.
var ErrNotRegistered = errors.New("config: factory not registered")

// Registry maps codec and preprocessor names to their constructor functions.
// It is safe for concurrent use.
type Registry struct {
	mu            sync.RWMutex
	encoders      map[string]func(CodecConfig) (codec.Encoder, error)
	decoders      map[string]func(CodecConfig) (codec.Decoder, error)
	preprocessors map[string]func(PreprocessConfig) (codec.Preprocessor, error)
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{
		encoders:      make(map[string]func(CodecConfig) (codec.Encoder, error)),
		decoders:      make(map[string]func(CodecConfig) (codec.Decoder, error)),
		preprocessors: make(map[string]func(PreprocessConfig) (codec.Preprocessor, error)),
	}
}

// RegisterEncoder registers an encoder factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterEncoder(name CodecName, factory func(CodecConfig) (codec.Encoder, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.encoders[string(name)] = factory
}

// RegisterDecoder registers a decoder factory under name.
func (r *Registry) RegisterDecoder(name CodecName, factory func(CodecConfig) (codec.Decoder, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decoders[string(name)] = factory
}

// RegisterPreprocessor registers a preprocessor factory under name.
func (r *Registry) RegisterPreprocessor(name PreprocessorName, factory func(PreprocessConfig) (codec.Preprocessor, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.preprocessors[string(name)] = factory
}

// CreateEncoder instantiates an encoder using the factory registered under
// cfg.Name. Returns [ErrNotRegistered] if no factory has been registered for
// that name.
func (r *Registry) CreateEncoder(cfg CodecConfig) (codec.Encoder, error) {
	r.mu.RLock()
	factory, ok := r.encoders[string(cfg.Name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: encoder/%q", ErrNotRegistered, cfg.Name)
	}
	return factory(cfg)
}

// CreateDecoder instantiates a decoder using the factory registered under
// cfg.Name.
func (r *Registry) CreateDecoder(cfg CodecConfig) (codec.Decoder, error) {
	r.mu.RLock()
	factory, ok := r.decoders[string(cfg.Name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: decoder/%q", ErrNotRegistered, cfg.Name)
	}
	return factory(cfg)
}

// CreatePreprocessor instantiates a preprocessor using the factory registered
// under cfg.Name.
func (r *Registry) CreatePreprocessor(cfg PreprocessConfig) (codec.Preprocessor, error) {
	r.mu.RLock()
	factory, ok := r.preprocessors[string(cfg.Name)]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: preprocessor/%q", ErrNotRegistered, cfg.Name)
	}
	return factory(cfg)
}
