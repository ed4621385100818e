package guest

// Version is the table version the package imports from, exported as the
// seal_abi_version_1 marker.
const Version = 1

// ModuleName is the host module the table is imported from.
const ModuleName = "seal_abi_v1"
