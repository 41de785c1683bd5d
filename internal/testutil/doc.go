// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Common helpers include fixture repositories (WriteTree, AddFiles),
// environment management (MustSetenv, SetHomeDir) and the container test
// semaphore (ContainerSemaphore).
package testutil
