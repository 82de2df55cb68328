// Package security implements the build security policy: the blocked
// command filter and the sandbox lifecycle.
//
// A sandbox is a throwaway directory created inside the project for a
// single build. Only the policy's allowed paths are copied in:
//
//	dir, err := security.CreateSandbox(project, policy)
//	defer security.CleanupSandbox(dir)
//
// The network isolation flag is carried on the policy and reported, but it
// is not enforced by this package.
package security
