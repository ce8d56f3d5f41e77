/*
The sync package implements dirmirror's one-way mirroring algorithm. A pass
makes the replica tree match the source tree's file membership and contents.

A pass runs in three stages:
1) Files that exist in the source but not in the replica are created, and
   files whose contents differ are overwritten.
2) Files that exist in the replica but not in the source are removed.
3) The pass is marked complete.

Files are matched across the two trees by their path relative to each root.
Contents are compared by their sha512 digest. Nothing is cached between
passes, so every pass rederives the diff from the filesystem.

The sync algorithm only deals with regular files. Empty directories aren't
synced, and directories left empty by deletions aren't removed.

Failures acting on a single file are reported as FileActionFailed events and
don't stop the pass. A root that can't be listed aborts the pass before
anything is modified.
*/
package sync
