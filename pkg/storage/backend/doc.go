// Package backend opens the configured state backend once and hands out
// namespaced adapters for it. Embedding applications use it to turn a
// config.StoreConfig into storage helpers without caring which backend is
// behind them.
package backend
