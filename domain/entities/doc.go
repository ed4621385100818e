// Package entities holds the plain data types shared by the host, the ABI
// layer and tooling.
package entities
