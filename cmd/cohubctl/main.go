// cohubctl is the operator CLI for a CoHub database.
package main

func main() {
	Execute()
}
