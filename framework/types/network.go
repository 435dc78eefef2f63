package types

import "github.com/ethereum/go-ethereum/common"

// Network is the name of an Ethereum network as identified by its genesis block.
type Network string

const (
	Mainnet Network = "mainnet"
	Ropsten Network = "ropsten"
	Rinkeby Network = "rinkeby"
	Unknown Network = "unknown"
)

var genesisNetworks = map[common.Hash]Network{
	common.HexToHash("0xd4e56740f876aef8c010b86a40d5f56745a118d0906a34e69aec8c0db1cb8fa3"): Mainnet,
	common.HexToHash("0x41941023680923e0fe4d74a34bdac8141f2540e3ae90623718e47d66d1ca4a2d"): Ropsten,
	common.HexToHash("0x6341fd3daf94b748c72ced5a5b26028f2474f5f00d824504e4fa37a75767e177"): Rinkeby,
}

// IdentifyNetwork maps a genesis block hash to the network it belongs to.
// Unrecognised hashes map to Unknown.
func IdentifyNetwork(genesis common.Hash) Network {
	if n, ok := genesisNetworks[genesis]; ok {
		return n
	}
	return Unknown
}

// GenesisHash returns the genesis block hash of a known network.
func GenesisHash(n Network) (common.Hash, bool) {
	for h, name := range genesisNetworks {
		if name == n {
			return h, true
		}
	}
	return common.Hash{}, false
}
