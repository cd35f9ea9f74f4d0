// Package store provides the evidence vector stores.
package store
