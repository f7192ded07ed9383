package entity

type User struct {
	Base

	Name          string
	WalletAddress string
}
