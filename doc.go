// Package docket is the Composition Root for Docket, a typed repository layer
// over document databases.
//
// It connects the generic repositories of pkg/typed with a store adapter
// chosen by URI: Cloud Firestore ("firestore://project[/database]") or the
// local filesystem ("file://path" or a bare path), where every collection is a
// directory and every document a JSON or YAML file.
//
// Features:
//
//   - **Typed CRUD**: Add, Update, Delete, Exists and Find on any struct embedding docket.Base.
//   - **Declarative Queries**: filters, ordering, cursors and limits in one FetchOptions value.
//   - **Live Streams**: Get, GetSnapshot, Fetch and FetchSnapshots push every change until closed.
//   - **Pass-through Errors**: store errors reach the caller untouched.
//
// Usage:
//
//	factory, err := docket.Open(ctx, "firestore://my-project", docket.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer factory.Close()
//
//	messages := docket.Create[Message](factory, "rooms/general/messages")
//	stream := messages.Fetch(ctx, &docket.FetchOptions{
//		OrderBy:    []core.Sort{docket.OrderAsc("timeStamp")},
//		StartAfter: []any{12345},
//	})
//	defer stream.Close()
//	for page := range stream.C() {
//		render(page)
//	}
package docket
