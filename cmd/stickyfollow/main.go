// Command stickyfollow runs and controls the sticker follow daemon.
package main

func main() {
	Execute()
}
