// Package imaging contains the imaging operations: flashing an image file to
// a drive, cloning one drive to another, creating an image from a drive and
// compressing an image. Every destructive action is expressed as a Step and
// handed to a Runner, so a dry run can print the exact commands instead of
// executing them.
package imaging
