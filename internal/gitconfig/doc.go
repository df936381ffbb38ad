// Package gitconfig wires arcane into git's content filter mechanism.
//
// A repository is protected when three things hold:
//
//   - git config declares filter.git-arcane.{clean,smudge,required}
//   - .gitattributes routes matching files through filter=git-arcane
//   - .gitignore does not hide those files from git
//
// ConfigureRepo, UpdateAttributes and EnsureTracked establish each of them.
// ConfigureGlobal does the same for ~/.gitconfig and also registers the
// git-seal filter name so repositories created by that tool keep working.
//
// git itself is reached through the Runner interface; ExecRunner shells out
// to the git binary.
package gitconfig
