// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat implements the chat session controller.
//
// The controller owns the single model session, appends turns to the shared
// model.Store and patches the trailing model turn as reply chunks arrive.
// Sends are serialized by an atomic state token:
//
//	Uninitialized -> Idle | Failed
//	Idle -> Sending -> Streaming* -> Idle
//
// A send attempted outside Idle is dropped, never queued. A failed send rolls
// back exactly the model placeholder it added.
package chat
