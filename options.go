package sbommeld

import (
	"github.com/sbommeld/sbommeld/pkg/classify"
	"github.com/sbommeld/sbommeld/pkg/errors"
	"github.com/sbommeld/sbommeld/pkg/merge"
	"github.com/sbommeld/sbommeld/pkg/store"
)

// Option configures a Client.
type Option func(*Client) error

// WithStore substitutes the storage collaborator.
func WithStore(s store.Store) Option {
	return func(c *Client) error {
		if s == nil {
			return errors.NewValidationError("store", nil, "store cannot be nil")
		}
		c.store = s
		return nil
	}
}

// WithClassifier configures the similarity classifier.
func WithClassifier(opts ...classify.Option) Option {
	return func(c *Client) error {
		classifier, err := classify.New(opts...)
		if err != nil {
			return err
		}
		c.classifier = classifier
		return nil
	}
}

// WithMerger configures the merge engine.
func WithMerger(opts ...merge.Option) Option {
	return func(c *Client) error {
		merger, err := merge.New(opts...)
		if err != nil {
			return err
		}
		c.merger = merger
		return nil
	}
}
