/*
Package cvdf holds the types and utilities shared by every cvdf package:
the logging facade, the error kinds, the membership-type enumeration used by
the cloud-tracking voxel tables, simple 3d geometry, and command parsing.

A cvdf run turns a sequence of per-timestep voxel tables and LES scalar
fields into a VAPOR data collection (.vdf) holding one masked volume per
timestep:

	voxel tables -> extrema pass -> wrap offsets -> mask/crop -> raw volume -> raw2vdf

The heavy lifting lives in the voxels, domain, mask, rawvol, vapor and
pipeline packages.
*/
package cvdf
