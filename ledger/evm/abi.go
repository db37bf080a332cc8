package evm

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

func parseLaunchpadABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(launchpadABI))
}

func parseERC721ABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(erc721ABI))
}

// launchpadABI covers the launchpad contract surface the services use:
// creator operations, purchases, whitelist management, the read accessors,
// and the five launchpad events.
const launchpadABI = `[
  {"type":"function","name":"createLaunch","stateMutability":"nonpayable","inputs":[
    {"name":"name","type":"string"},
    {"name":"symbol","type":"string"},
    {"name":"description","type":"string"},
    {"name":"imageUri","type":"string"},
    {"name":"maxSupply","type":"uint256"},
    {"name":"autoProgress","type":"bool"}
  ],"outputs":[{"name":"launchId","type":"uint256"}]},
  {"type":"function","name":"configurePhase","stateMutability":"nonpayable","inputs":[
    {"name":"launchId","type":"uint256"},
    {"name":"phase","type":"uint8"},
    {"name":"price","type":"uint256"},
    {"name":"startTime","type":"uint256"},
    {"name":"endTime","type":"uint256"},
    {"name":"maxPerWallet","type":"uint256"},
    {"name":"maxSupply","type":"uint256"}
  ],"outputs":[]},
  {"type":"function","name":"startLaunch","stateMutability":"nonpayable","inputs":[
    {"name":"launchId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"completeLaunch","stateMutability":"nonpayable","inputs":[
    {"name":"launchId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"cancelLaunch","stateMutability":"nonpayable","inputs":[
    {"name":"launchId","type":"uint256"}],"outputs":[]},
  {"type":"function","name":"purchase","stateMutability":"payable","inputs":[
    {"name":"launchId","type":"uint256"},
    {"name":"quantity","type":"uint256"},
    {"name":"metadataRef","type":"string"}
  ],"outputs":[]},
  {"type":"function","name":"addToWhitelist","stateMutability":"nonpayable","inputs":[
    {"name":"launchId","type":"uint256"},
    {"name":"phase","type":"uint8"},
    {"name":"accounts","type":"address[]"}
  ],"outputs":[]},
  {"type":"function","name":"removeFromWhitelist","stateMutability":"nonpayable","inputs":[
    {"name":"launchId","type":"uint256"},
    {"name":"phase","type":"uint8"},
    {"name":"accounts","type":"address[]"}
  ],"outputs":[]},
  {"type":"function","name":"getLaunchInfo","stateMutability":"view","inputs":[
    {"name":"launchId","type":"uint256"}],"outputs":[
    {"name":"collection","type":"address"},
    {"name":"creator","type":"address"},
    {"name":"name","type":"string"},
    {"name":"symbol","type":"string"},
    {"name":"description","type":"string"},
    {"name":"imageUri","type":"string"},
    {"name":"maxSupply","type":"uint256"},
    {"name":"totalMinted","type":"uint256"},
    {"name":"status","type":"uint8"},
    {"name":"currentPhase","type":"uint8"},
    {"name":"autoProgress","type":"bool"}
  ]},
  {"type":"function","name":"getPhaseConfig","stateMutability":"view","inputs":[
    {"name":"launchId","type":"uint256"},
    {"name":"phase","type":"uint8"}],"outputs":[
    {"name":"price","type":"uint256"},
    {"name":"startTime","type":"uint256"},
    {"name":"endTime","type":"uint256"},
    {"name":"maxPerWallet","type":"uint256"},
    {"name":"maxSupply","type":"uint256"},
    {"name":"totalSold","type":"uint256"},
    {"name":"isConfigured","type":"bool"}
  ]},
  {"type":"function","name":"isWhitelisted","stateMutability":"view","inputs":[
    {"name":"launchId","type":"uint256"},
    {"name":"phase","type":"uint8"},
    {"name":"account","type":"address"}],"outputs":[
    {"name":"whitelisted","type":"bool"}
  ]},
  {"type":"event","name":"LaunchCreated","inputs":[
    {"name":"launchId","type":"uint256","indexed":true},
    {"name":"collection","type":"address","indexed":true},
    {"name":"creator","type":"address","indexed":true}
  ],"anonymous":false},
  {"type":"event","name":"PhaseConfigured","inputs":[
    {"name":"launchId","type":"uint256","indexed":true},
    {"name":"phase","type":"uint8","indexed":false},
    {"name":"price","type":"uint256","indexed":false},
    {"name":"startTime","type":"uint256","indexed":false},
    {"name":"endTime","type":"uint256","indexed":false},
    {"name":"maxPerWallet","type":"uint256","indexed":false},
    {"name":"maxSupply","type":"uint256","indexed":false}
  ],"anonymous":false},
  {"type":"event","name":"LaunchStatusChanged","inputs":[
    {"name":"launchId","type":"uint256","indexed":true},
    {"name":"newStatus","type":"uint8","indexed":false}
  ],"anonymous":false},
  {"type":"event","name":"WhitelistUpdated","inputs":[
    {"name":"launchId","type":"uint256","indexed":true},
    {"name":"phase","type":"uint8","indexed":false},
    {"name":"account","type":"address","indexed":false},
    {"name":"allowed","type":"bool","indexed":false}
  ],"anonymous":false},
  {"type":"event","name":"ItemPurchased","inputs":[
    {"name":"launchId","type":"uint256","indexed":true},
    {"name":"buyer","type":"address","indexed":true},
    {"name":"tokenId","type":"uint256","indexed":false},
    {"name":"phase","type":"uint8","indexed":false},
    {"name":"price","type":"uint256","indexed":false}
  ],"anonymous":false}
]`

// erc721ABI covers the collection surface needed for lazy discovery and
// mint/ownership tracking.
const erc721ABI = `[
  {"type":"function","name":"name","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"symbol","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"string"}]},
  {"type":"function","name":"totalSupply","stateMutability":"view","inputs":[],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"event","name":"Transfer","inputs":[
    {"name":"from","type":"address","indexed":true},
    {"name":"to","type":"address","indexed":true},
    {"name":"tokenId","type":"uint256","indexed":true}
  ],"anonymous":false}
]`
